package kubernetes

import (
	"context"
	"errors"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// FailureReason classifies a watch-open failure for logs and metric
// labels. API status errors carry a server-assigned reason; transport
// errors are collapsed into a small set of stable labels so the metric
// cardinality stays bounded.
func FailureReason(err error) string {
	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		if reason := apiStatus.Status().Reason; reason != "" {
			return string(reason)
		}
	}

	switch {
	case apierrors.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return "Network"
		}
		return "Transport"
	}
}
