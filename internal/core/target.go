package core

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// WatchTarget identifies the resource collection a watch session is
// bound to: the group/version/resource plus the query parameters that
// narrow the stream. A target is immutable for the lifetime of its
// session.
type WatchTarget struct {
	Resource      schema.GroupVersionResource
	Namespace     string
	LabelSelector string
	FieldSelector string
}

func (t WatchTarget) String() string {
	if t.Namespace == "" {
		return t.Resource.String()
	}
	return fmt.Sprintf("%s in %s", t.Resource, t.Namespace)
}
