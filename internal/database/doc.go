// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling. Migrations are plain idempotent SQL
// applied at startup. Repositories implement the domain interfaces:
// UserRepository, CompetitionRepository, VoteRepository.
package database
