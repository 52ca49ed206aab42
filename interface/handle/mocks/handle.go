package mocks

import (
	"github.com/stretchr/testify/mock"
)

type Handle struct {
	mock.Mock
}

func (_m *Handle) Seek(off int64, whence int) (int64, error) {
	ret := _m.Called(off, whence)

	var r0 int64
	if rf, ok := ret.Get(0).(func(int64, int) int64); ok {
		r0 = rf(off, whence)
	} else {
		r0 = ret.Get(0).(int64)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(int64, int) error); ok {
		r1 = rf(off, whence)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *Handle) Read(p []byte) (int, error) {
	ret := _m.Called(p)

	var r0 int
	if rf, ok := ret.Get(0).(func([]byte) int); ok {
		r0 = rf(p)
	} else {
		r0 = ret.Int(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func([]byte) error); ok {
		r1 = rf(p)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *Handle) Write(p []byte) (int, error) {
	ret := _m.Called(p)

	var r0 int
	if rf, ok := ret.Get(0).(func([]byte) int); ok {
		r0 = rf(p)
	} else {
		r0 = ret.Int(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func([]byte) error); ok {
		r1 = rf(p)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *Handle) Flush() error {
	ret := _m.Called()
	return ret.Error(0)
}

func (_m *Handle) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}
