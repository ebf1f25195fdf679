package miner

import "errors"

var (
	// ErrNoResponse is returned when a device accepted the connection but sent nothing usable.
	ErrNoResponse = errors.New("no response from device")
	// ErrUnauthorized is returned when the management web API rejects the credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotIPv4 is returned for subnets outside the IPv4 address space.
	ErrNotIPv4 = errors.New("only IPv4 subnets can be scanned")
	// ErrSubnetTooLarge is returned for subnets wider than the configured limit.
	ErrSubnetTooLarge = errors.New("subnet too large")
)
