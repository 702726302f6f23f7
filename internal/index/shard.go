package index

import "errors"

// ErrInvalidName is returned when a package name is empty.
var ErrInvalidName = errors.New("package name must not be empty")

// ShardPath returns the path of a package's metadata file inside a
// sparse registry index. Index directories are partitioned by name
// length and leading characters so no single directory grows too large.
//
// https://doc.rust-lang.org/cargo/reference/registry-index.html#index-files
func ShardPath(name string) (string, error) {
	switch len(name) {
	case 0:
		return "", ErrInvalidName
	case 1:
		return "1/" + name, nil
	case 2:
		return "2/" + name, nil
	case 3:
		return "3/" + name[:1] + "/" + name, nil
	default:
		return name[:2] + "/" + name[2:4] + "/" + name, nil
	}
}
