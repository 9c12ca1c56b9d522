//go:build !unix

package control

import "errors"

func sendTerm(int) error {
	return errors.ErrUnsupported
}

func probe(int) (bool, error) {
	return false, errors.ErrUnsupported
}
