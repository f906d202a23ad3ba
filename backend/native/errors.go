// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNoProvider is returned when a device provider does not expose HAL
	// device and queue handles.
	ErrNoProvider = errors.New("native: provider does not expose HAL types")

	// ErrNoRenderTarget is returned by draws issued without a render target.
	ErrNoRenderTarget = errors.New("native: no render target bound")

	// ErrUnboundSlot is returned when a pipeline binding refers to an empty
	// slot at draw time.
	ErrUnboundSlot = errors.New("native: pipeline binding refers to an empty slot")

	// ErrGPUTimeout is returned when a submission does not complete in time.
	ErrGPUTimeout = errors.New("native: timed out waiting for GPU")
)
