// Package utils holds small validation helpers shared by the API and the
// pipeline manifest loader.
package utils
