// Package counterreconciler is the single writer of every denormalized
// counter: options.simple_votes, options.ranked_points,
// options.preferential_votes, polls.comments_count and the comment reaction
// counts.
//
// It consumes counter tasks from the task bus. Each task is applied at most
// once per event id: the dedup reservation and the counter deltas commit in
// the same store transaction.
package counterreconciler
