// SPDX-License-Identifier: EPL-2.0

// Package speaker maps a source channel count, or speaker geometry declared
// in stream metadata, onto a set of virtual speakers.
//
// Automatic layouts are Quad, 5.1 and 7.1 templates for 4, 6 and 8 channels
// and an even circle for anything else. Declared geometry replaces them.
// Endpoints are never closed on a topology change: they are parked and
// handed out again, newest first, before the Factory is asked for more.
package speaker
