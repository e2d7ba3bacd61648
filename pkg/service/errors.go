package service

import "errors"

var (
	// ErrNoConnection is returned when no connection has a free slot and
	// the pool may not open another one.
	ErrNoConnection = errors.New("no connection with a free slot")

	// ErrNoConnector is returned by NewPool without a Connector.
	ErrNoConnector = errors.New("pool requires a connector")

	// ErrPoolClosed is returned by operations on a closed pool.
	ErrPoolClosed = errors.New("pool closed")
)
