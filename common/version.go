package common

// PackageName is used as the metrics namespace and default log service tag.
const PackageName = "package_registry"

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/ruteri/package-registry/common.Version=v1.2.3"
var Version = "dev"
