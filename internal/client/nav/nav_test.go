package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path         string
		wantRoute    Route
		wantRedirect bool
	}{
		{"/", Login, true},
		{"", Login, true},
		{"/login", Login, false},
		{"login", Login, false},
		{"/signup/", Signup, false},
		{"/dashboard", Dashboard, false},
		{"/nope", NotFound, false},
		{"/dashboard/extra", NotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, redirect := Resolve(tt.path)
			assert.Equal(t, tt.wantRoute, route)
			assert.Equal(t, tt.wantRedirect, redirect)
		})
	}
}

func TestRoute_Protected(t *testing.T) {
	assert.True(t, Dashboard.Protected())
	for _, r := range []Route{Root, Login, Signup, NotFound} {
		assert.False(t, r.Protected(), r)
	}
}

func TestHistory_ReplaceBlocksBack(t *testing.T) {
	h := NewHistory(Login)
	h.Navigate(Dashboard, false)
	assert.Equal(t, Dashboard, h.Current())

	h.Navigate(Login, true)
	assert.Equal(t, []Route{Login, Login}, h.Entries())

	prev, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, Login, prev)

	_, ok = h.Back()
	assert.False(t, ok)
}
