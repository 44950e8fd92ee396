// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type planCase struct {
	name    string
	method  string
	url     string
	body    func(t *testing.T) interface{}
	wantErr string
	check   func(t *testing.T, p *Plan)
}

func fixedBody(body interface{}) func(*testing.T) interface{} {
	return func(*testing.T) interface{} { return body }
}

var planCases = []planCase{
	{
		name: "empty method is GET",
		url:  "https://foo.com",
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, http.MethodGet, p.Method)
			assert.Equal(t, "https://foo.com", p.URL.String())
			assert.Nil(t, p.Body)
			assert.NotNil(t, p.Header)
			assert.Equal(t, "GET https://foo.com", p.String())
		},
	},
	{
		name:   "HEAD sets host",
		method: http.MethodHead,
		url:    "https://bar.com/status",
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, http.MethodHead, p.Method)
			assert.Equal(t, "bar.com", p.Host)
		},
	},
	{
		name:   "extension method",
		method: "PURGE",
		url:    "http://cache.local/x",
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, "PURGE", p.Method)
		},
	},
	{
		name: "empty port dropped",
		url:  "http://ham:",
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, "ham", p.Host)
			assert.Equal(t, "ham", p.URL.Host)
		},
	},
	{
		name:   "string body",
		method: http.MethodPost,
		url:    "/submit",
		body:   fixedBody("str"),
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, []byte("str"), p.Body)
		},
	},
	{
		name:   "form body",
		method: http.MethodPost,
		url:    "/submit",
		body:   fixedBody(url.Values{"k": {"v"}}),
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, []byte("k=v"), p.Body)
		},
	},
	{
		name:   "reader body",
		method: http.MethodPost,
		url:    "/submit",
		body: func(*testing.T) interface{} {
			return strings.NewReader("from a reader")
		},
		check: func(t *testing.T, p *Plan) {
			assert.Equal(t, []byte("from a reader"), p.Body)
		},
	},
	{
		name:    "control character in method",
		method:  "\tGET",
		url:     "eggs",
		wantErr: `inflight/request: invalid method "\tGET"`,
	},
	{
		name:    "separator in method",
		method:  "GET(1)",
		url:     "eggs",
		wantErr: `inflight/request: invalid method "GET(1)"`,
	},
	{
		name:    "unparseable URL",
		url:     ":::",
		wantErr: `parse ":::": missing protocol scheme`,
	},
	{
		name:    "unsupported body",
		method:  http.MethodPost,
		url:     "spam",
		body:    fixedBody(map[string]int{}),
		wantErr: badBodyTypeMsg,
	},
	{
		name:   "body read failure",
		method: http.MethodPost,
		url:    "hello",
		body: func(t *testing.T) interface{} {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(5, errors.New("problematic")).Once()
			m.On("Close").Return(nil).Once()
			return m
		},
		wantErr: "problematic",
	},
}

func (c planCase) run(t *testing.T, newPlan func(method, url string, body interface{}) (*Plan, error)) *Plan {
	var body interface{}
	if c.body != nil {
		body = c.body(t)
	}
	p, err := newPlan(c.method, c.url, body)
	if c.wantErr != "" {
		assert.Nil(t, p)
		assert.EqualError(t, err, c.wantErr)
		return nil
	}
	require.NoError(t, err)
	require.NotNil(t, p)
	c.check(t, p)
	return p
}

func TestNewPlan(t *testing.T) {
	for _, c := range planCases {
		t.Run(c.name, func(t *testing.T) {
			if p := c.run(t, NewPlan); p != nil {
				assert.Equal(t, context.Background(), p.Context())
			}
		})
	}
}

func TestNewPlanWithContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "bar")
	newPlan := func(method, url string, body interface{}) (*Plan, error) {
		return NewPlanWithContext(ctx, method, url, body)
	}
	for _, c := range planCases {
		t.Run(c.name, func(t *testing.T) {
			if p := c.run(t, newPlan); p != nil {
				assert.Equal(t, ctx, p.Context())
			}
		})
	}
	t.Run("nil context", func(t *testing.T) {
		p, err := NewPlanWithContext(nil, "GET", "test", nil) //nolint:staticcheck
		assert.Nil(t, p)
		assert.EqualError(t, err, nilCtxMsg)
	})
}

func TestPlan_Context(t *testing.T) {
	var p Plan
	assert.Equal(t, context.Background(), p.Context())
}

func TestPlan_AddCookie(t *testing.T) {
	p, err := NewPlan("", "cookietown", nil)
	require.NoError(t, err)
	p.AddCookie(&http.Cookie{Name: "session", Value: "abc"})
	p.AddCookie(&http.Cookie{Name: "theme", Value: "dark", Path: "/ignored", Secure: true})

	r := p.ToRequest(context.Background())
	cookies := r.Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, "theme", cookies[1].Name)
	assert.Equal(t, "session=abc; theme=dark", p.Header.Get("Cookie"))
}

func TestPlan_SetBasicAuth(t *testing.T) {
	p, err := NewPlan("", "http://secure.example", nil)
	require.NoError(t, err)
	p.SetBasicAuth("patsy", "coconuts")

	user, pass, ok := p.ToRequest(context.Background()).BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "patsy", user)
	assert.Equal(t, "coconuts", pass)
}

func TestPlan_ToRequest(t *testing.T) {
	t.Run("context and fields", func(t *testing.T) {
		p, err := NewPlan(http.MethodHead, "http://h.example/x", nil)
		require.NoError(t, err)
		p.Close = true
		p.Host = "override.example"
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		r := p.ToRequest(ctx)
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, ctx, r.Context())
		assert.Same(t, p.URL, r.URL)
		assert.True(t, r.Close)
		assert.Equal(t, "override.example", r.Host)
	})
	t.Run("empty body", func(t *testing.T) {
		for _, body := range []interface{}{nil, "", []byte{}} {
			p, err := NewPlan(http.MethodPost, "test", body)
			require.NoError(t, err)
			r := p.ToRequest(context.Background())
			assert.Nil(t, r.Body)
			assert.Nil(t, r.GetBody)
			assert.Zero(t, r.ContentLength)
		}
	})
	t.Run("body is replayable", func(t *testing.T) {
		p, err := NewPlan(http.MethodPost, "test", "foo")
		require.NoError(t, err)
		r := p.ToRequest(context.Background())
		assert.Equal(t, int64(3), r.ContentLength)
		for i := 0; i < 2; i++ {
			rc, err := r.GetBody()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, "foo", string(b))
		}
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "foo", string(b))
	})
}

func TestPlan_WithContext(t *testing.T) {
	p, err := NewPlan("GET", "test", nil)
	require.NoError(t, err)
	t.Run("nil context", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			p.WithContext(nil) //nolint:staticcheck
		})
	})
	t.Run("shallow copy", func(t *testing.T) {
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, 1)
		q := p.WithContext(ctx)
		assert.NotSame(t, p, q)
		assert.Equal(t, context.Background(), p.Context())
		assert.Equal(t, ctx, q.Context())
		assert.Same(t, p.URL, q.URL)
	})
}
