// Package docs registers the OpenAPI description served at /swagger. The
// template is kept by hand in step with the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/videos/download": {
            "post": {
                "description": "Extracts metadata for an Instagram reel, picks the best playable format and returns a proxied stream URL.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["videos"],
                "summary": "Resolve a reel link",
                "parameters": [
                    {"description": "Link to resolve", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DownloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.VideoResponse"}},
                    "400": {"description": "Missing or unsupported link", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "No playable format", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/videos/upload": {
            "post": {
                "description": "Stores a local video, probes it with ffprobe and optionally mirrors it to Supabase Storage.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["videos"],
                "summary": "Upload a video file",
                "parameters": [
                    {"type": "file", "description": "Video file", "name": "video", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.VideoResponse"}},
                    "400": {"description": "Missing file or not a video", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/videos/{videoId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["videos"],
                "summary": "Get a video",
                "parameters": [
                    {"type": "string", "description": "Video ID", "name": "videoId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.VideoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/videos/{videoId}/narration": {
            "post": {
                "description": "Transcribes and translates the video, synthesizes speech for each sentence and opens a playback session.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["narration"],
                "summary": "Narrate a video",
                "parameters": [
                    {"type": "string", "description": "Video ID", "name": "videoId", "in": "path", "required": true},
                    {"description": "Narration options", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.NarrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.NarrationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "502": {"description": "Transcription failed", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Narration not configured", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/proxy-stream": {
            "get": {
                "description": "Streams the upstream file with the headers its CDN requires, forwarding Range requests.",
                "produces": ["application/octet-stream"],
                "tags": ["videos"],
                "summary": "Stream a remote video",
                "parameters": [
                    {"type": "string", "description": "Upstream media URL", "name": "url", "in": "query", "required": true},
                    {"type": "string", "description": "Name for Content-Disposition", "name": "filename", "in": "query"},
                    {"type": "string", "description": "Original page link", "name": "source", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "206": {"description": "Partial Content", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/sessions": {
            "post": {
                "description": "Builds speech and subtitle timelines from an upstream batch.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Open a playback session",
                "parameters": [
                    {"description": "Speech and subtitle batch", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Describe a session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Stops and releases every clip of the session.",
                "tags": ["sessions"],
                "summary": "Close a session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/events": {
            "post": {
                "description": "Applies clock and audio events in order and returns the audio commands the player must run.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Report player events",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Events", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.EventsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.EventsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "410": {"description": "Session closed", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/audio/{index}": {
            "get": {
                "description": "Returns the clip bytes, or redirects when the clip is hosted elsewhere.",
                "produces": ["audio/mpeg"],
                "tags": ["sessions"],
                "summary": "Fetch a narration clip",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Speech segment index", "name": "index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "302": {"description": "Found"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.DownloadRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "audio_option": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "handlers.NarrationRequest": {
            "type": "object",
            "required": ["target_language"],
            "properties": {
                "speaking_rate": {"type": "number"},
                "target_language": {"type": "string"}
            }
        },
        "handlers.CreateSessionRequest": {
            "type": "object",
            "properties": {
                "speaking_rate": {"type": "number"},
                "speech": {"type": "array", "items": {"$ref": "#/definitions/segment.Raw"}},
                "subtitles": {"type": "array", "items": {"$ref": "#/definitions/segment.Raw"}},
                "video_id": {"type": "string"}
            }
        },
        "handlers.EventsRequest": {
            "type": "object",
            "required": ["events"],
            "properties": {
                "events": {"type": "array", "items": {"$ref": "#/definitions/session.Event"}}
            }
        },
        "handlers.VideoResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/models.VideoInfo"},
                "status": {"type": "string", "example": "success"}
            }
        },
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "report": {"type": "object"},
                        "session": {"$ref": "#/definitions/session.State"}
                    }
                },
                "status": {"type": "string", "example": "success"}
            }
        },
        "handlers.NarrationResponse": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "cached": {"type": "boolean"},
                        "report": {"type": "object"},
                        "session": {"$ref": "#/definitions/session.State"},
                        "synthesized": {"type": "integer"}
                    }
                },
                "status": {"type": "string", "example": "success"}
            }
        },
        "handlers.StateResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/session.State"},
                "status": {"type": "string", "example": "success"}
            }
        },
        "handlers.EventsResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/session.Result"},
                "status": {"type": "string", "example": "success"}
            }
        },
        "models.VideoInfo": {
            "type": "object",
            "properties": {
                "codec": {"type": "string"},
                "direct_url": {"type": "string"},
                "duration": {"type": "number"},
                "duration_label": {"type": "string"},
                "filename": {"type": "string"},
                "filesize": {"type": "integer"},
                "filesize_label": {"type": "string"},
                "has_audio": {"type": "boolean"},
                "id": {"type": "string"},
                "quality": {"type": "string"},
                "stream_url": {"type": "string"},
                "thumbnail": {"type": "string"},
                "title": {"type": "string"},
                "uploader": {"type": "string"}
            }
        },
        "segment.Raw": {
            "type": "object",
            "properties": {
                "audioMimeType": {"type": "string"},
                "audioPayload": {"type": "string"},
                "end": {"description": "Seconds or HH:MM:SS,mmm"},
                "start": {"description": "Seconds or HH:MM:SS,mmm"},
                "text": {"type": "string"}
            }
        },
        "session.Event": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "attempt": {"type": "integer"},
                "position": {"type": "number"},
                "rate": {"type": "number"},
                "reason": {"type": "string"},
                "segment": {"type": "integer"},
                "type": {
                    "type": "string",
                    "enum": ["position", "play", "pause", "seeked", "ratechange", "ended", "subtitle_position", "subtitle_seeked", "audio_started", "audio_rejected", "audio_ended"]
                }
            }
        },
        "session.Command": {
            "type": "object",
            "properties": {
                "attempt": {"type": "integer"},
                "op": {"type": "string", "enum": ["reset", "play", "pause", "rate", "release"]},
                "rate": {"type": "number"},
                "segment": {"type": "integer"},
                "seq": {"type": "integer"}
            }
        },
        "session.Line": {
            "type": "object",
            "properties": {
                "end": {"type": "number"},
                "index": {"type": "integer"},
                "start": {"type": "number"},
                "text": {"type": "string"}
            }
        },
        "session.Result": {
            "type": "object",
            "properties": {
                "commands": {"type": "array", "items": {"$ref": "#/definitions/session.Command"}},
                "engine": {"$ref": "#/definitions/timeline.Snapshot"},
                "notices": {"type": "array", "items": {"type": "string"}},
                "subtitles": {"$ref": "#/definitions/timeline.Visibility"}
            }
        },
        "session.State": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "engine": {"$ref": "#/definitions/timeline.Snapshot"},
                "id": {"type": "string"},
                "speech": {"type": "array", "items": {"$ref": "#/definitions/session.Line"}},
                "subtitles": {"type": "array", "items": {"$ref": "#/definitions/session.Line"}},
                "video_id": {"type": "string"},
                "visible_subtitles": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "timeline.Snapshot": {
            "type": "object",
            "properties": {
                "active_index": {"type": "integer"},
                "last_position": {"type": "number"},
                "played": {"type": "array", "items": {"type": "boolean"}},
                "playing": {"type": "boolean"},
                "rate_multiplier": {"type": "number"},
                "state": {"type": "string", "enum": ["idle", "active"]}
            }
        },
        "timeline.Visibility": {
            "type": "object",
            "properties": {
                "changed": {"type": "boolean"},
                "forced": {"type": "boolean"},
                "scroll_to": {"type": "integer"},
                "visible": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"},
                "status": {"type": "string", "example": "error"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ClipHive Narrator API",
	Description:      "Resolves short-form videos and keeps translated narration in sync with their playback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
