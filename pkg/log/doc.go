/*
Package log provides structured logging for the engine using zerolog.

Init(Config{JSONOutput: true}) writes JSON lines; otherwise (including the
zero Config) a console writer for local development is used. Components call WithComponent,
WithPartition, or WithEntity to attach context before logging so every line
can be correlated back to a partition or entity without grepping.
*/
package log
