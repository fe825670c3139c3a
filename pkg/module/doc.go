// Package module identifies the subsystems that can contribute a diagnostic
// dump to a crash archive.
//
// Internally a group of modules is a Set. The bit-encoded Mask form exists
// only because the dump notification boundary mandates it; convert with
// Set.Mask and FromMask at that boundary and nowhere else.
//
//	s := module.NewSet(module.AP, module.Location)
//	s = s.Remove(module.AP)
//	wire := s.Mask()
package module
