//go:build cuda11

package npp

const nppSoVersion = "11"
