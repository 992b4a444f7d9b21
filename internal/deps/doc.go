// Package deps downloads, verifies, installs and health-checks the external
// tools Playlistify needs: yt-dlp and ffmpeg.
//
// # Layout
//
// Every dependency lives in its own directory under the application data
// root:
//
//	<data>/dependencies/ytdlp/bin/yt-dlp[.exe]
//	<data>/dependencies/ffmpeg/bin/ffmpeg[.exe]
//
// # Install pipeline
//
// An install of one dependency runs these steps:
//  1. Remove the previous install directory and create a fresh temp dir
//  2. Probe the download URL with a HEAD request
//  3. Download the artifact with retries and exponential backoff
//  4. Verify it against the release's SHA-256 manifest when one is
//     published, checking the manifest's OpenPGP signature when a keyring
//     is configured
//  5. Place the executable (yt-dlp ships as a bare binary; ffmpeg is
//     unpacked from a zip or tar archive and searched for)
//  6. Run a version probe and refresh the cached status
//
// The temp directory is removed whatever the outcome.
//
// # Usage
//
//	resolver, err := deps.NewResolver(info, dataDir, nil)
//	if err != nil {
//	    return err
//	}
//
//	mgr, err := deps.NewManager(deps.Config{Resolver: resolver, Logger: log})
//	if err != nil {
//	    return err
//	}
//
//	unsubscribe := mgr.Subscribe(func(ev deps.Event) { ... })
//	defer unsubscribe()
//
//	if err := mgr.Initialize(ctx); err != nil {
//	    return err
//	}
//	err = mgr.InstallDependency(ctx, deps.NameFFmpeg)
//
// # Architecture
//
//   - Resolver: platform to download URL and install path mapping
//   - Downloader: HTTP download with redirects, idle timeout and progress
//   - Verifier: SHA-256 manifest and OpenPGP signature checks
//   - Extraction: zip and tar (gz, xz) unpacking plus executable search
//   - Manager: orchestration, status cache and lifecycle events
package deps
