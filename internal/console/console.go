// Package console provides typed access to the shipdesk resources for the
// operator console. Every call goes through an apiclient.Client and so
// carries the session's token and its refresh-on-401 behaviour.
package console

import (
	"errors"
	"net/url"
	"strconv"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
)

// ErrInvalidStatus is returned before any request is made when a status is
// not one of the known values.
var ErrInvalidStatus = errors.New("console: unknown shipment status")

// Console groups the resource services.
type Console struct {
	Clients   *Clients
	Shipments *Shipments
	Seed      *Seed
}

// New creates the resource services over api.
func New(api *apiclient.Client) *Console {
	return &Console{
		Clients:   &Clients{api: api},
		Shipments: &Shipments{api: api},
		Seed:      &Seed{api: api},
	}
}

func pageQuery(q url.Values, page model.PageRequest) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if page.Page > 0 {
		q.Set("page", strconv.Itoa(page.Page))
	}
	if page.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(page.PageSize))
	}
	return q
}
