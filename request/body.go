// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
	urlpkg "net/url"
)

const badBodyTypeMsg = "inflight/request: invalid type (for body use nil, " +
	"string, []byte, url.Values, io.Reader or io.ReadCloser)"

var errBadBodyType = errors.New(badBodyTypeMsg)

// BodyBytes buffers a body argument so it can be sent any number of
// times.
//
// A nil body yields a nil slice. A []byte is returned as is, a string
// is converted, and url.Values are form-encoded. Readers are read to
// EOF and closed if they are also Closers; a read or close error is
// returned with a nil slice. Any other type is an error.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case urlpkg.Values:
		return []byte(x.Encode()), nil
	case io.ReadCloser:
		return readAndClose(x)
	case io.Reader:
		return readAndClose(io.NopCloser(x))
	}
	return nil, errBadBodyType
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	b, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
