package history

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Scans: one row per completed scan
CREATE TABLE IF NOT EXISTS scans (
    scan_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    mode TEXT NOT NULL,               -- full, quick, articles, products
    scanned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

    overall_score INTEGER DEFAULT 0,
    technical_score REAL DEFAULT 0,
    onpage_score REAL DEFAULT 0,
    schema_score REAL DEFAULT 0,

    sitemap_urls INTEGER DEFAULT 0,
    rss_items INTEGER DEFAULT 0,
    articles_found INTEGER DEFAULT 0,
    products_found INTEGER DEFAULT 0,
    issues_count INTEGER DEFAULT 0,

    -- Full result payload as JSON
    result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(url);
CREATE INDEX IF NOT EXISTS idx_scans_scanned ON scans(scanned_at DESC);
`
