// Package ffmpeg shells out to the ffmpeg binary for the two media operations
// a run needs: grabbing a single still frame at a timestamp and burning a
// subtitle track into a new video file.
package ffmpeg
