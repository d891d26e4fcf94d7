package docs

import (
	"strings"
	"testing"
)

func TestSwaggerInfoRegistered(t *testing.T) {
	if SwaggerInfo == nil {
		t.Fatal("swagger info not initialized")
	}
	if SwaggerInfo.Title == "" {
		t.Fatal("swagger info missing title")
	}
}

func TestSwaggerDocListsRoutes(t *testing.T) {
	doc := SwaggerInfo.ReadDoc()
	for _, path := range []string{"/analyze/{code}", "/bars/{code}", "/scan", "/trades", "/patterns/best"} {
		if !strings.Contains(doc, `"`+path+`"`) {
			t.Fatalf("swagger doc missing %s", path)
		}
	}
}
