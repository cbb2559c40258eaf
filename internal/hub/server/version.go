package server

// Version is the server version reported by /health and /version.
const Version = "1.3.0"
