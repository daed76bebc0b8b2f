package main

// VERSION is overridden at build time with -ldflags "-X main.VERSION=...".
var VERSION = "0.1.0-dev"
