package versioning

var (
	// ApplicationVersion is set by the build process.
	ApplicationVersion = "dev"
)
