// Package password implements argon2id credential hashing in PHC string
// format. Hashes are self-describing: Verify reads the cost parameters out of
// the stored string, so stored credentials survive configuration changes, and
// NeedsUpgrade detects hashes minted under weaker parameters than the current
// configuration.
package password
