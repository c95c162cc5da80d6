package version

// Current is the released version of the cleaner, without a "v" prefix.
const Current = "0.3.0"
