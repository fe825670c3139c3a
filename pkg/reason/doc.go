// Package reason models the reboot-reason code reported for the previous
// session and the ranges the classifier cares about.
//
// The code space is partitioned by five labels:
//
//	[0, Label1)       normal boot
//	[Label1, Label3)  simple reset, always saved
//	[Label4, Label5)  normal variants
//	everything else   abnormal, saved when the prior cycle was interrupted
//
// The reason is read from the kernel command line by default (Cmdline).
package reason
