// Package discussionservice owns poll comments and like/dislike reactions.
//
// Comments nest one level deep. Each (author, comment) pair is in exactly one
// reaction state; a toggle locks the comment row, moves the pair to its next
// state and appends the counter deltas to the outbox in one transaction.
// likes_count, dislikes_count and polls.comments_count are never written here.
package discussionservice
