package rma

// ToolVersion is the rmatrack release version.
const ToolVersion = "0.1.0"
