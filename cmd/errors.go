/*
Copyright © 2023 David Guadalupe <guadalupe.david@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
)

// Error codes
const (
	SUCCESS   = 0
	FAILURE   = 1
	EPARSE    = 2
	EALREADY  = 16
	EPERM     = 126
	ENOTFOUND = 127
)

var ErrFailure = errors.New("fail")
var ErrParse = errors.New("cannot parse configuration")
var ErrAlready = errors.New("already running")
var ErrPermission = errors.New("permission denied")
var ErrNotFound = errors.New("not found")

// fatal prints the error message and exits with the proper error code. If
// the error is nil, it does nothing. Only unrecoverable startup failures
// reach it; steady-state conditions are logged and survived.
func fatal(e error) {
	if e != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", prog, e)
		switch {
		case errors.Is(e, ErrParse):
			os.Exit(EPARSE)
		case errors.Is(e, ErrAlready):
			os.Exit(EALREADY)
		case errors.Is(e, ErrPermission):
			os.Exit(EPERM)
		case errors.Is(e, ErrNotFound):
			os.Exit(ENOTFOUND)
		default:
			os.Exit(FAILURE)
		}
	}
}

// vim: set ft=go fdm=indent ts=2 sw=2 tw=79 noet:
