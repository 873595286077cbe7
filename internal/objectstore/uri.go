package objectstore

import (
	"fmt"
	"strings"

	"automl-orchestrator/internal/errkind"
)

// URI is the parsed form of an opaque "<scheme>://<bucket>/<path>" object
// location, as stored verbatim in Dataset/Model/Project rows.
type URI struct {
	Scheme string
	Bucket string
	Path   string
}

func (u URI) String() string {
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Path)
}

// ParseURI splits an object URI and rejects anything that could escape the
// configured bucket allow-list or the bucket's own key namespace.
func ParseURI(raw string, allowedBuckets []string) (URI, error) {
	schemeSplit := strings.SplitN(raw, "://", 2)
	if len(schemeSplit) != 2 || schemeSplit[0] == "" {
		return URI{}, errkind.New(errkind.InputInvalid, "object uri missing scheme: "+raw)
	}

	rest := schemeSplit[1]
	bucketSplit := strings.SplitN(rest, "/", 2)
	if len(bucketSplit) != 2 || bucketSplit[0] == "" || bucketSplit[1] == "" {
		return URI{}, errkind.New(errkind.InputInvalid, "object uri missing bucket or path: "+raw)
	}

	u := URI{Scheme: schemeSplit[0], Bucket: bucketSplit[0], Path: bucketSplit[1]}

	if !bucketAllowed(u.Bucket, allowedBuckets) {
		return URI{}, errkind.New(errkind.InputInvalid, "bucket not in allow-list: "+u.Bucket)
	}
	if hasTraversal(u.Path) {
		return URI{}, errkind.New(errkind.InputInvalid, "object path contains traversal segment: "+u.Path)
	}

	return u, nil
}

func bucketAllowed(bucket string, allowed []string) bool {
	for _, b := range allowed {
		if b == bucket {
			return true
		}
	}
	return false
}

func hasTraversal(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return true
		}
	}
	return false
}
