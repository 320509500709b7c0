// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package mpq provides pure Go read-only access to MPQ (Mo'PaQ) archives.

MPQ is an archive format created by Blizzard Entertainment, used in games
like Diablo, StarCraft, and Warcraft III. This package reads format V1
archives: it locates the archive header inside the host file, decrypts
and validates the hash and block tables, and reassembles files from
their compressed, optionally encrypted blocks.

# Basic Usage

Opening an archive and extracting a file by number:

	archive, err := mpq.Open("war3map.w3m")
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	out, err := os.Create("file000001.xxx")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err := archive.ExtractFile(1, out); err != nil {
		log.Fatal(err)
	}

Files are identified by their 1-based number in the block table. When the
real path of a file is known, [Archive.FileIndex] resolves it through the
hash table:

	number, err := archive.FileIndex("Scripts\\war3map.j")
	if err != nil {
		log.Fatal(err)
	}
	err = archive.ExtractFile(number, out)

# Compression

Blocks may be stored plain, imploded with the PKWARE data compression
library, or compressed by an ordered combination of methods (Huffman,
zlib, PKWARE, bzip2, ADPCM mono/stereo). All of these decode
transparently during extraction.

# Path Conventions

MPQ archives use backslash (\) as the path separator and compare names
case-insensitively. Forward slashes and lowercase letters are accepted
everywhere a name is, so both of these resolve the same file:

	archive.FileIndex("Scripts\\war3map.j")
	archive.FileIndex("scripts/war3map.j")

# Limitations

This package reads archives; it does not create or modify them:

  - No support for writing or patching archives
  - No support for MPQ format V2+ (Burning Crusade and later)
  - No patch-archive chaining
  - File names are not recovered from an embedded listfile; callers map
    numbers to names themselves
*/
package mpq
