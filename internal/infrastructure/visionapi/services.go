package visionapi

import (
	"context"
	"net/http"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// ServiceStatus asks the services controller first and falls back to the
// older documents route when the backend does not serve it.
func (c *Client) ServiceStatus(ctx context.Context) (domain.ServiceStatus, error) {
	var out domain.ServiceStatus
	err := c.call(ctx, endpointServiceStatus, nil, nil, &out)
	if StatusCode(err) == http.StatusNotFound {
		out = domain.ServiceStatus{}
		err = c.call(ctx, endpointLegacyStatus, nil, nil, &out)
	}
	if err != nil {
		return domain.ServiceStatus{}, err
	}
	return out, nil
}
