package hubcore

// PluginDevGuide is served at GET /plugins/docs and via the MCP
// plugin_dev_guide tool: an AI-optimized reference for writing a
// tuicommander plugin (manifest schema, capability list, host API shape).
const PluginDevGuide = `# tuicommander Plugin Development Reference

## Installation

Create a directory "{id}/" containing manifest.json + main.js under the
platform plugins path:
- macOS: ~/Library/Application Support/tuicommander/plugins/
- Linux: ~/.config/tuicommander/plugins/
- Windows: %APPDATA%/tuicommander/plugins/

Editing any file inside a plugin's directory triggers an automatic
unload + re-import (debounced 500ms, see the plugins filesystem watcher).

## manifest.json

` + "```json" + `
{
  "id": "my-plugin",
  "name": "My Plugin",
  "version": "1.0.0",
  "minAppVersion": "0.1.0",
  "main": "main.js",
  "capabilities": ["pty:write", "ui:markdown"],
  "allowedUrls": ["https://api.example.com/*"]
}
` + "```" + `

Constraints:
- id must match the directory name exactly, non-empty.
- main must be a bare filename (no path separators, no "..").
- capabilities is a subset of: pty:write, ui:markdown, ui:sound, ui:panel,
  ui:ticker, net:http, credentials:read, invoke:read_file,
  invoke:list_markdown_files, fs:read, fs:list, fs:watch.
- allowedUrls gates net:http; "*" matches a path prefix.

## Data sandbox

Each plugin gets a private key/value data area under
{plugin_dir}/{id}/data/{path}. The host rejects an empty id, any ".." in
id or path, or an absolute path. Reads of a missing file return empty;
writes create parent directories as needed; deletes are idempotent.

## Host API surface

The host object passed to onload(host) exposes:
- registerSection({id, label, priority, canDismissAll})
- registerOutputWatcher({pattern, onMatch(match, sessionId)}) — called
  synchronously on the PTY hot path; keep onMatch fast (<1ms).
- addItem({id, pluginId, sectionId, title, subtitle, icon, dismissible,
  contentUri | onClick})
- registerMarkdownProvider(scheme, {provideContent(uri)})

A plugin module's default export needs id, onload(host), and onunload().
`
