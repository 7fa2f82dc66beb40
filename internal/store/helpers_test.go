package store_test

import "errors"

var errMock = errors.New("mock error")
