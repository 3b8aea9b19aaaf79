// Package process provides a runtime that launches commands as local
// processes.
//
// Each process is placed in its own process group on unix so a caller that
// later signals the group reaches the whole tree. Launch failures come from
// the launch guard and are never wrapped, so callers can inspect the
// *launch.Error directly.
package process
