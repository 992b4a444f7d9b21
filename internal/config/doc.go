// Package config loads Playlistify's settings file, playlistify.lua, and
// resolves the application data directory.
//
// The settings file is plain Lua evaluated in a sandbox: os, io, debug and
// every code-loading function are removed, and evaluation is cut off after
// a short deadline. A read-only platform table is injected so settings can
// branch on the host:
//
//	playlistify = {
//	  dependencies = {
//	    ffmpeg = {
//	      url = platform.is_alpine and "https://mirror.local/ffmpeg.tar.xz" or nil,
//	    },
//	  },
//	  network = { download_timeout = 60 },
//	}
//
// A missing settings file is not an error; Defaults are used instead.
package config
