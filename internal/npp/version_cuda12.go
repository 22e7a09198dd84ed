//go:build !cuda11

package npp

// Soname suffix for the NPP libraries shipped with the toolkit this binary
// was built against. CUDA 12 toolkits install libnppicc.so.12/libnppc.so.12;
// build with -tags cuda11 for the previous major version.
const nppSoVersion = "12"
