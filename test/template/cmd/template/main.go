package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/core"
	localio "github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/io/local"
	"github.com/palantir/catalog-cleaning-pipeline/test/template/processor"
)

func main() {
	in, err := localio.ReadTableCSV(strings.NewReader("sku\n ab-1 \n"), localio.ReadOptions{})
	if err != nil {
		panic(err)
	}
	out, _, err := core.RunStages(context.Background(), in, []core.Stage{processor.UpperColumn{Column: "sku"}}, nil)
	if err != nil {
		panic(err)
	}
	if err := localio.WriteTableCSV(os.Stdout, out); err != nil {
		panic(err)
	}
	fmt.Println(out.Len(), "row(s)")
}
