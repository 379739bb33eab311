// Package redis implements the vote pipeline's Redis adapters: the
// durable FIFO vote queue (a list, RPUSH/BLPOP), the dead-letter list,
// the vote_updates broadcast channel (pub/sub), and the per-user vote
// debouncer (SETNX with TTL).
package redis
