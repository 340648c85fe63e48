package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/openepidata/graph-etl/schema"
	"github.com/openepidata/graph-etl/store"
)

type publishedRollup struct {
	SubmitterID string            `json:"submitter_id"`
	Country     string            `json:"country_region"`
	State       string            `json:"province_state,omitempty"`
	County      string            `json:"county,omitempty"`
	Date        string            `json:"date"`
	Metrics     map[string]string `json:"metrics"`
}

func (s *Server) information(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"information": map[string]interface{}{
			"server": map[string]interface{}{
				"version": viper.GetString("server.version"),
			},
			"redaction_threshold": s.redactor.Threshold,
		},
	})
}

// countryRollups serves one country's newest archived day, or the day given
// by the date query parameter.
func (s *Server) countryRollups(c *gin.Context) {
	s.serveRollups(c, "", false)
}

// stateRollups narrows the answer down to one province/state and its
// counties.
func (s *Server) stateRollups(c *gin.Context) {
	state := c.Param("state")
	if state == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters)
		return
	}
	s.serveRollups(c, state, true)
}

func (s *Server) serveRollups(c *gin.Context, state string, subNationalOnly bool) {
	iso3 := strings.ToUpper(c.Param("country"))
	if len(iso3) != 3 {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters)
		return
	}

	var docs []schema.RollupDoc
	var err error
	if date := c.Query("date"); date != "" {
		docs, err = s.store.RollupsForDate(iso3, date)
	} else {
		docs, err = s.store.LatestRollups(iso3)
	}
	if err != nil {
		if err == store.ErrNoRollupData {
			abortWithEncoding(c, http.StatusNotFound, errorNoRollupData, err)
		} else {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		}
		return
	}

	published := make([]publishedRollup, 0, len(docs))
	for _, doc := range docs {
		if subNationalOnly {
			if doc.State != state {
				continue
			}
		}
		subNational := doc.State != "" || doc.County != ""
		published = append(published, publishedRollup{
			SubmitterID: doc.SubmitterID,
			Country:     doc.CountryName,
			State:       doc.State,
			County:      doc.County,
			Date:        doc.Date,
			Metrics:     s.redactor.Metrics(doc.Metrics, doc.ISO2, subNational),
		})
	}

	c.JSON(http.StatusOK, gin.H{"rollups": published})
}
