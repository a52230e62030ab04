package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
	"shipdesk/internal/session"
)

func TestReorder(t *testing.T) {
	tests := []struct {
		args []string
		n    int
		want []string
	}{
		{[]string{"abc", "delivered", "-note", "left at door"}, 2, []string{"-note", "left at door", "abc", "delivered"}},
		{[]string{"-note", "x", "abc", "delivered"}, 2, []string{"-note", "x", "abc", "delivered"}},
		{[]string{"abc", "-name=Acme"}, 1, []string{"-name=Acme", "abc"}},
		{[]string{"-page", "2"}, 1, []string{"-page", "2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reorder(tt.args, tt.n), "%v", tt.args)
	}
}

func TestParseAddress(t *testing.T) {
	assert.Equal(t, model.Address{Line1: "1 Main St"}, parseAddress("1 Main St"))
	assert.Equal(t, model.Address{Line1: "1 Main St", City: "Lima", Country: "PE", Zip: "15001"}, parseAddress("1 Main St|Lima|PE|15001"))
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, describe(fmt.Errorf("run: %w", session.ErrNotAuthenticated)), "not logged in")
	assert.Equal(t, "interrupted", describe(context.Canceled))
	assert.Equal(t, "client not found (CLIENT_NOT_FOUND)", describe(&apiclient.APIError{Status: 404, Code: "CLIENT_NOT_FOUND", Message: "client not found"}))
	assert.Equal(t, "the server could not be reached", describe(&apiclient.NetworkError{Err: errors.New("dial tcp: refused")}))
}
