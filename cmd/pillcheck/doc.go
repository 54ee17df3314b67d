// Command pillcheck is the CLI for the pill photo verification service:
// one-shot comparisons, attempt history, configuration utilities, and a
// foreground server mode.
package main
