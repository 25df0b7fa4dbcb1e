// Package archive lists the audio and video members of an archive without
// extracting it. Any format mholt/archives identifies from content works:
// zip, 7z, rar and tar, plain or compressed.
//
// Each candidate member is opened and its first block read, which is enough
// to tell an encrypted entry from a readable one. Encrypted members are still
// reported, flagged as such. Damage in a tar stream aborts the scan with
// services.ErrArchiveIntegrity and no members; a bad zip or 7z entry only
// drops that entry.
package archive
