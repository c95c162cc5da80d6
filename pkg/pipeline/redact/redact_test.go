package redact_test

import (
	"testing"

	"github.com/palantir/catalog-cleaning-pipeline/pkg/pipeline/redact"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain message untouched", in: "missing required column \"PrimaryColor\"", want: "missing required column \"PrimaryColor\""},
		{name: "mysql dsn", in: "connect mysql: etl:s3cret@tcp(db:3306)/shop", want: "connect mysql: etl:<redacted>@tcp(db:3306)/shop"},
		{name: "postgres url", in: "postgres://etl:s3cret@db:5432/shop?sslmode=disable", want: "postgres://etl:<redacted>@db:5432/shop?sslmode=disable"},
		{name: "keyword dsn", in: "host=db password=s3cret dbname=shop", want: "host=db <redacted_kv> dbname=shop"},
		{name: "bearer", in: "Authorization: Bearer abc.def", want: "Authorization: Bearer <redacted>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redact.Secrets(tt.in); got != tt.want {
				t.Fatalf("Secrets(%q)=%q want=%q", tt.in, got, tt.want)
			}
		})
	}
}
