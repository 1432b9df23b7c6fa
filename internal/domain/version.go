package domain

// EngineVersion is the waterfall engine version stamped into snapshots.
const EngineVersion = "0.1.0"
