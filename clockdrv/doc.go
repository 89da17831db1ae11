// Package clockdrv
// Author: momentics <momentics@gmail.com>
//
// Frequency-locked-loop clock driver built on clockconf. Each option of the
// clock is a mode the hardware can run in, listed from least to most capable.
// Clients ask for a Spec; the driver resolves it to the lowest option that
// satisfies it and requests that option's gate. The update pass applies the
// highest requested option, forcing the main power domain on for options that
// need it.
package clockdrv
