// Package parser turns ritual text into an ir.Program.
//
// Grammar (one instruction per line):
//
//	// comment               ignored
//	                         blank, ignored
//	::pause_deliberation()   fixed zero-argument marker
//	::redirect_focus(arg)    fixed one-argument marker
//	::summon.council(args)   category marker (summon, manifest, bind,
//	                         context, detect, enforce, cmp)
//	::verify.sentience()     generic fallback for any other category
//
// Rules are tried in table order and the first match wins. A line that
// matches nothing contributes no instruction; parsing never fails.
package parser
