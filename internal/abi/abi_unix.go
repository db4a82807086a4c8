// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package abi

const isWindows = false
