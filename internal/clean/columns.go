package clean

// Catalog column names as they appear in the input file header.
const (
	ColProductID     = "ProductID"
	ColProductBrand  = "ProductBrand"
	ColProductName   = "ProductName"
	ColGender        = "Gender"
	ColPrimaryColor  = "PrimaryColor"
	ColPrice         = "Price (INR)"
	ColDescription   = "Description"
	ColPriceCategory = "PriceCategory"
)

// RequiredColumns are the input columns every stage relies on.
var RequiredColumns = []string{
	ColProductID,
	ColProductBrand,
	ColProductName,
	ColGender,
	ColPrimaryColor,
	ColPrice,
	ColDescription,
}

// UnknownColor fills absent PrimaryColor values. The text standardizer lower-cases it and the
// row filter drops rows carrying it.
const UnknownColor = "Unknown"

// Price category labels, in ascending order.
const (
	PriceLow    = "Low"
	PriceMedium = "Medium"
	PriceHigh   = "High"
)
