package handlers

import (
	"encoding/json"
	"net/http"
)

func errorResponseSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": "#/components/schemas/ErrorResponse"},
			},
		},
	}
}

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    true,
		"schema":      schema,
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Weather Insight API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	stringSchema := map[string]interface{}{"type": "string"}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Weather Insight API",
			"description": "Bulk loads forecast files into a document store and evaluates point-location weather conditions",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:5000", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/load_to_db": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Load forecast files",
					"description": "Loads every .csv, .csv.gz and .csv.zst file of the configured data directory in parallel chunks, then ensures the coordinate index. Re-running appends duplicate rows.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "All files loaded",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"message": stringSchema,
											"result": map[string]interface{}{
												"type": "object",
												"properties": map[string]interface{}{
													"files":    map[string]string{"type": "integer"},
													"chunks":   map[string]string{"type": "integer"},
													"records":  map[string]string{"type": "integer"},
													"duration": map[string]interface{}{"type": "integer", "description": "nanoseconds"},
												},
											},
										},
									},
								},
							},
						},
						"400": errorResponseSchema("Data directory missing or without data files"),
						"500": errorResponseSchema("Store write or unexpected failure"),
					},
				},
			},
			"/weather/insight": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Evaluate a condition at a coordinate",
					"description": "Evaluates the condition for each stored forecast whose Latitude and Longitude equal lat and lon exactly",
					"parameters": []map[string]interface{}{
						queryParam("condition", "Condition to evaluate", map[string]interface{}{
							"type": "string",
							"enum": []string{"veryHot", "rainyAndCold"},
						}),
						queryParam("lat", "Latitude, matched as stored", stringSchema),
						queryParam("lon", "Longitude, matched as stored", stringSchema),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "One entry per matching forecast, in store order",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"forecastTime": stringSchema,
												"conditionMet": map[string]string{"type": "boolean"},
											},
										},
									},
								},
							},
						},
						"400": errorResponseSchema("Missing or invalid query parameters"),
						"500": errorResponseSchema("Store query or evaluation failure"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check the API and its store connection",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API and store are healthy",
						},
						"503": map[string]interface{}{
							"description": "Store unreachable",
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": stringSchema,
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   stringSchema,
						"message": stringSchema,
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
