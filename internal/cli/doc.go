// Package cli implements draftctl, an interactive shell that opens the
// draftkeeper forms, edits them field by field and drives their draft
// lifecycle (autosave, explicit save, submit, cancel, discard).
//
// The REPL reads one command per line:
//
//	help                 show available commands
//	forms                list form types
//	login                enter an access token (input is not echoed)
//	open <type> [id]     open a creation form, or an edit form for id
//	set <field> <value>  change a field; the rest of the line is the value
//	show                 print the current field values
//	state                print the autosave state and draft id
//	save                 save the draft now
//	submit               publish or submit the form
//	attach <field> <p>   upload the file at p for a file field
//	hide                 flush pending changes, as when navigating away
//	cancel               drop local changes and close the form
//	discard              drop local changes, delete the draft, close
//	close                close the form keeping the local draft
//	exit | quit          leave the program
package cli
