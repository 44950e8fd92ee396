// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"bytes"
	"net/url"
	"testing"
	"time"

	"github.com/gogama/inflight/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGet(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		h := request.NewHandle()
		m := newMockIssuer(t)
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "foo"
		}), time.Second, mock.Anything, mock.Anything).Return(h, nil).Once()
		g, err := Get(m, "foo", time.Second, func(*request.Result) {}, nil)
		assert.Equal(t, h, g)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("blocking", func(t *testing.T) {
		expected := &request.Result{}
		m := newMockIssuer(t)
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "foo"
		}), time.Duration(0), mock.Anything).Return(expected, nil).Once()
		r, err := GetBlocking(m, "foo", 0, nil)
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("error invalid URL", func(t *testing.T) {
		m := newMockIssuer(t)
		h, err := Get(m, ":::", 0, func(*request.Result) {}, nil)
		assert.True(t, h.IsNil())
		assert.Error(t, err)
		r, err := GetBlocking(m, ":::", 0, nil)
		assert.Nil(t, r)
		assert.Error(t, err)
		m.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.AssertNotCalled(t, "IssueBlocking", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHead(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		h := request.NewHandle()
		m := newMockIssuer(t)
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "HEAD" && p.URL.String() == "bar"
		}), time.Duration(0), mock.Anything, mock.Anything).Return(h, nil).Once()
		g, err := Head(m, "bar", 0, func(*request.Result) {}, nil)
		assert.Equal(t, h, g)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("blocking", func(t *testing.T) {
		expected := &request.Result{}
		m := newMockIssuer(t)
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "HEAD"
		}), time.Minute, mock.Anything).Return(expected, nil).Once()
		r, err := HeadBlocking(m, "bar", time.Minute, nil)
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
}

func TestPost(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		h := request.NewHandle()
		m := newMockIssuer(t)
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "POST" && p.URL.String() == "baz" &&
				p.Header.Get("Content-Type") == "ham" &&
				bytes.Equal(p.Body, []byte("eggs"))
		}), time.Second, mock.Anything, mock.Anything).Return(h, nil).Once()
		g, err := Post(m, "baz", "ham", "eggs", time.Second, func(*request.Result) {}, nil)
		assert.Equal(t, h, g)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("blocking", func(t *testing.T) {
		expected := &request.Result{}
		m := newMockIssuer(t)
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "POST" && p.Header.Get("Content-Type") == "text/plain" &&
				bytes.Equal(p.Body, []byte("abc"))
		}), time.Duration(0), mock.Anything).Return(expected, nil).Once()
		r, err := PostBlocking(m, "baz", "text/plain", []byte("abc"), 0, nil)
		assert.Same(t, expected, r)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("form defaults content type", func(t *testing.T) {
		h := request.NewHandle()
		m := newMockIssuer(t)
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Header.Get("Content-Type") == "application/x-www-form-urlencoded" &&
				string(p.Body) == "q=inflight"
		}), time.Duration(0), mock.Anything, mock.Anything).Return(h, nil).Once()
		g, err := Post(m, "search", "", url.Values{"q": {"inflight"}}, 0, func(*request.Result) {}, nil)
		assert.Equal(t, h, g)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
	t.Run("error invalid body", func(t *testing.T) {
		m := newMockIssuer(t)
		_, err := Post(m, "baz", "text/plain", 123, 0, func(*request.Result) {}, nil)
		assert.EqualError(t, err, "inflight/request: invalid type (for body use nil, string, []byte, url.Values, io.Reader or io.ReadCloser)")
		r, err := PostBlocking(m, ":::", "text/plain", "x", 0, nil)
		assert.Nil(t, r)
		assert.Error(t, err)
		m.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInflate(t *testing.T) {
	t.Run("nil issuer", func(t *testing.T) {
		assert.PanicsWithValue(t, "inflight: nil issuer", func() {
			Inflate(nil)
		})
	})
	t.Run("already a Multiplexer", func(t *testing.T) {
		tr := &Tracker{}
		x := Inflate(tr)
		assert.Same(t, tr, x)
	})
	t.Run("verbs", func(t *testing.T) {
		h := request.NewHandle()
		expected := &request.Result{}
		m := newMockIssuer(t)
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "a"
		}), time.Duration(0), mock.Anything, mock.Anything).Return(h, nil).Once()
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "HEAD" && p.URL.String() == "b"
		}), time.Duration(0), mock.Anything, mock.Anything).Return(h, nil).Once()
		m.On("Issue", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "POST" && p.URL.String() == "c" && p.Body == nil
		}), time.Duration(0), mock.Anything, mock.Anything).Return(h, nil).Once()
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "GET" && p.URL.String() == "d"
		}), time.Duration(0), mock.Anything).Return(expected, nil).Once()
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "HEAD" && p.URL.String() == "e"
		}), time.Duration(0), mock.Anything).Return(expected, nil).Once()
		m.On("IssueBlocking", mock.MatchedBy(func(p *request.Plan) bool {
			return p.Method == "POST" && p.URL.String() == "f"
		}), time.Duration(0), mock.Anything).Return(expected, nil).Once()
		m.On("Cancel", h).Return(true).Once()

		x := Inflate(m)
		cb := func(*request.Result) {}
		for _, f := range []func() (request.Handle, error){
			func() (request.Handle, error) { return x.Get("a", 0, cb, nil) },
			func() (request.Handle, error) { return x.Head("b", 0, cb, nil) },
			func() (request.Handle, error) { return x.Post("c", "text/plain", nil, 0, cb, nil) },
		} {
			g, err := f()
			assert.Equal(t, h, g)
			assert.NoError(t, err)
		}
		for _, f := range []func() (*request.Result, error){
			func() (*request.Result, error) { return x.GetBlocking("d", 0, nil) },
			func() (*request.Result, error) { return x.HeadBlocking("e", 0, nil) },
			func() (*request.Result, error) { return x.PostBlocking("f", "text/plain", nil, 0, nil) },
		} {
			r, err := f()
			assert.Same(t, expected, r)
			assert.NoError(t, err)
		}
		assert.True(t, x.Cancel(h))
		m.AssertExpectations(t)
	})
	t.Run("CloseIdleConnections", func(t *testing.T) {
		t.Run("Issuer does not implement IdleCloser", func(t *testing.T) {
			m := newMockIssuer(t)
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertNotCalled(t, "CloseIdleConnections")
		})
		t.Run("Issuer implements IdleCloser", func(t *testing.T) {
			m := newMockIssuerWithCloseIdleConnections(t)
			m.On("CloseIdleConnections").Once()
			x := Inflate(m)
			x.CloseIdleConnections()
			m.AssertExpectations(t)
		})
	})
}

type mockIssuer struct {
	mock.Mock
}

func newMockIssuer(t *testing.T) *mockIssuer {
	m := &mockIssuer{}
	m.Test(t)
	return m
}

func (m *mockIssuer) Issue(p *request.Plan, timeout time.Duration, onComplete CompletionFunc, onTimeout func()) (request.Handle, error) {
	args := m.Called(p, timeout, onComplete, onTimeout)
	return args.Get(0).(request.Handle), args.Error(1)
}

func (m *mockIssuer) IssueBlocking(p *request.Plan, timeout time.Duration, onTimeout func()) (*request.Result, error) {
	args := m.Called(p, timeout, onTimeout)
	r := args.Get(0)
	err := args.Error(1)
	if r == nil {
		return nil, err
	}
	return r.(*request.Result), err
}

func (m *mockIssuer) Cancel(h request.Handle) bool {
	args := m.Called(h)
	return args.Bool(0)
}

type mockIssuerWithCloseIdleConnections struct {
	mockIssuer
}

func newMockIssuerWithCloseIdleConnections(t *testing.T) *mockIssuerWithCloseIdleConnections {
	m := &mockIssuerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockIssuerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}
