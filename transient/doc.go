// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies transport errors as transient or
// non-transient. The request tracker uses the classification to label
// transport error metrics and log lines.
//
// Package transient depends only on the standard library.
package transient
