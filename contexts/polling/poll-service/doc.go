// Package pollservice owns polls, their options and category links.
//
// Poll updates are destructive: the option set and category links are
// replaced wholesale inside one transaction, so option identity and any
// counters accumulated on the old options do not survive an update.
// Deleting a poll cascades to options, category links, votes and comments.
package pollservice
