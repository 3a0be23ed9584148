// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/usermgmt/pkg/errutil"
)

var errKind = errors.New("invalid credential")

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_USER_EXISTS").Errorf("taken")
	errutil.AssertErrorCode(t, err, "AUTH_USER_EXISTS")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("step", "issue_token").Errorf("failed")
	errutil.AssertErrorContext(t, err, "step", "issue_token")
}

func TestAssertCodedKind(t *testing.T) {
	err := oops.Code("AUTH_UNKNOWN_USER").Wrap(errKind)
	errutil.AssertCodedKind(t, err, "AUTH_UNKNOWN_USER", errKind)
}
