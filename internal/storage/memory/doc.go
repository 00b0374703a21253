// Package memory implements the taxonomy and progress repositories in process
// memory for development and tests. Data is lost on restart.
package memory
