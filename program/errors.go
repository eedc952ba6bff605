// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package program

import "fmt"

// Error is a failure reported by the journal program. Errors compare equal
// under errors.Is when their codes match, so a detailed error still matches
// its sentinel
type Error struct {
	Name   string
	Detail string
	Code   uint32
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (%d)", e.Name, e.Code)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Detail)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode returns the stable numeric code carried in receipts
func (e *Error) ErrorCode() uint32 {
	return e.Code
}

func (e *Error) withDetail(format string, args ...any) *Error {
	return &Error{
		Name:   e.Name,
		Code:   e.Code,
		Detail: fmt.Sprintf(format, args...),
	}
}

var (
	ErrAlreadyInitialized = &Error{Code: 6000, Name: "AlreadyInitialized"}
	ErrLengthExceeded     = &Error{Code: 6001, Name: "LengthExceeded"}
	ErrNotFound           = &Error{Code: 6002, Name: "NotFound"}
	ErrAddressCollision   = &Error{Code: 6003, Name: "AddressCollision"}
	ErrUnauthorized       = &Error{Code: 6004, Name: "Unauthorized"}
	ErrNotInitialized     = &Error{Code: 6005, Name: "NotInitialized"}
	ErrInvalidInstruction = &Error{Code: 6006, Name: "InvalidInstruction"}
	ErrInvalidAccountData = &Error{Code: 6007, Name: "InvalidAccountData"}
	ErrCounterOverflow    = &Error{Code: 6008, Name: "CounterOverflow"}
)

var errorsByCode = map[uint32]*Error{}

func init() {
	for _, e := range []*Error{
		ErrAlreadyInitialized,
		ErrLengthExceeded,
		ErrNotFound,
		ErrAddressCollision,
		ErrUnauthorized,
		ErrNotInitialized,
		ErrInvalidInstruction,
		ErrInvalidAccountData,
		ErrCounterOverflow,
	} {
		errorsByCode[e.Code] = e
	}
}

// ErrorFromCode returns the sentinel for a code, or nil if the code is unknown
func ErrorFromCode(code uint32) error {
	if e, ok := errorsByCode[code]; ok {
		return e
	}
	return nil
}
