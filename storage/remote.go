package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Join appends path segments to a remote prefix with exactly one slash between them.
// The scheme separator of the prefix is left alone:
//
//	Join("s3://bucket/logs/", "/run-1", "nextflow.log") == "s3://bucket/logs/run-1/nextflow.log"
func Join(prefix string, parts ...string) string {
	out := strings.TrimRight(prefix, "/")
	if strings.HasSuffix(prefix, ":///") || strings.HasSuffix(prefix, "://") {
		out = prefix
	}
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if strings.HasSuffix(out, "/") {
			out += p
		} else {
			out += "/" + p
		}
	}
	return out
}

// Location is a parsed s3://bucket/key remote path
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return fmt.Sprintf("s3://%v/%v", l.Bucket, l.Key)
}

// ParseS3 splits an s3:// url into bucket and key
func ParseS3(remote string) (Location, error) {
	u, err := url.Parse(remote)
	if err != nil {
		return Location{}, fmt.Errorf("invalid remote path %q: %v", remote, err)
	}
	if u.Scheme != "s3" {
		return Location{}, fmt.Errorf("unsupported remote path %q: only s3:// is supported", remote)
	}
	loc := Location{
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}
	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("remote path %q needs both a bucket and a key", remote)
	}
	return loc, nil
}
