// SPDX-License-Identifier: Apache-2.0
package memory

import "unsafe"

// unsafePtr returns the address backing a non-empty byte slice's storage.
func unsafePtr(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}
