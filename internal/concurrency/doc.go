// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deferred-work execution for hioload-clk: a worker pool running bound work
// units with coalesced submission and no self-concurrency, plus optional CPU
// pinning of workers on Linux.
package concurrency
