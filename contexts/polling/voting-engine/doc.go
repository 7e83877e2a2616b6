// Package votingengine admits simple votes and whole ranked/preferential
// ballots against a poll's current option set.
//
// Every acceptance path runs inside one store transaction with the poll row
// locked: the lifecycle guard, the validator or ballot scorer, the vote rows
// and the counter task appended to the outbox commit or roll back together.
// Counters themselves are never written here.
package votingengine
