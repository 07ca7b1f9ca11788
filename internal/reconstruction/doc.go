// Package reconstruction reads just enough of a sparse model to decide whether
// it can feed the prepare stage: its location and registered image count.
package reconstruction
