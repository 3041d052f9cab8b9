package refrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgr:diffgram xmlns:diffgr="urn:schemas-microsoft-com:xml-diffgram-v1">
          <KeyRate xmlns="">
            <KR diffgr:id="KR1">
              <DT>2026-08-28T00:00:00+03:00</DT>
              <Rate>6.00</Rate>
            </KR>
            <KR diffgr:id="KR2">
              <DT>2026-08-27T00:00:00+03:00</DT>
              <Rate>6.50</Rate>
            </KR>
          </KeyRate>
        </diffgr:diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap:Body>
</soap:Envelope>`

func TestParseRateLatestEntry(t *testing.T) {
	rate, err := ParseRate([]byte(feedFixture))
	require.NoError(t, err)
	assert.InDelta(t, 6.00, rate, 1e-9)
}

func TestParseRateEmptyFeed(t *testing.T) {
	_, err := ParseRate([]byte(`<?xml version="1.0"?><Envelope><Body/></Envelope>`))
	assert.Error(t, err)
}

func TestParseRateMalformedXML(t *testing.T) {
	_, err := ParseRate([]byte(`not xml`))
	assert.Error(t, err)
}
