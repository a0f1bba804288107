package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

const targetJSON = `{
  "retailer": "Target",
  "purchaseDate": "2022-01-01",
  "purchaseTime": "13:01",
  "items": [
    {"shortDescription": "Mountain Dew 12PK", "price": "6.49"},
    {"shortDescription": "Emils Cheese Pizza", "price": "12.25"},
    {"shortDescription": "Knorr Creamy Chicken", "price": "1.26"},
    {"shortDescription": "Doritos Nacho Cheese", "price": "3.35"},
    {"shortDescription": "   Klarbrunn 12-PK 12 FL OZ  ", "price": "12.00"}
  ],
  "total": "35.35"
}`

func readBody(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	var decoded map[string]any
	Expect(json.Unmarshal(body, &decoded)).To(Succeed())
	return decoded
}

func multipartBody(field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	} else {
		Expect(writer.WriteField("note", "no file here")).To(Succeed())
	}
	Expect(writer.Close()).To(Succeed())
	return &buf, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          DB
		scanner     *mockScanner
		storage     *mockStorage
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(NewService(db, scanner, storage), http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for range 4 {
			ghttpServer.AppendHandlers(server.ServeHTTP)
		}
	}

	post := func(path, body string) *http.Response {
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	process := func(body string) string {
		resp := post("/receipts/process", body)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		return readBody(resp)["id"].(string)
	}

	BeforeEach(func() {
		db = NewMemoryDB()
		scanner = newMockScanner()
		storage = newMockStorage()
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /receipts/process", func() {
		When("the receipt is valid", func() {
			It("should return status OK with a UUID", func() {
				resp := post("/receipts/process", targetJSON)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				body := readBody(resp)
				Expect(body).To(HaveKey("id"))
				_, err := uuid.Parse(body["id"].(string))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should issue a new id for every submission", func() {
				Expect(process(targetJSON)).NotTo(Equal(process(targetJSON)))
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp := post("/receipts/process", "{not json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("Invalid request body"))
			})
		})

		When("the body is null", func() {
			It("should report a null receipt", func() {
				resp := post("/receipts/process", "null")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("The receipt is invalid : Receipt cannot be null"))
			})
		})

		DescribeTable("rejects invalid receipts",
			func(body, message string) {
				resp := post("/receipts/process", body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal(message))
			},
			Entry("blank retailer",
				`{"retailer":" ","purchaseDate":"2022-01-01","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"1.00"}],"total":"1.00"}`,
				"The receipt is invalid : Retailer name must not be blank"),
			Entry("missing date",
				`{"retailer":"Target","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"1.00"}],"total":"1.00"}`,
				"The receipt is invalid : Purchase date must not be null"),
			Entry("missing time",
				`{"retailer":"Target","purchaseDate":"2022-01-01","items":[{"shortDescription":"a","price":"1.00"}],"total":"1.00"}`,
				"The receipt is invalid : Purchase time must not be null"),
			Entry("no items",
				`{"retailer":"Target","purchaseDate":"2022-01-01","purchaseTime":"13:01","items":[],"total":"1.00"}`,
				"The receipt is invalid : Receipt must have at least one item"),
			Entry("zero total",
				`{"retailer":"Target","purchaseDate":"2022-01-01","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"1.00"}],"total":"0.00"}`,
				"The receipt is invalid : Total amount must be greater than zero"),
			Entry("negative item price",
				`{"retailer":"Target","purchaseDate":"2022-01-01","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"-1.00"}],"total":"1.00"}`,
				"The receipt is invalid : Price of item must be greater than zero"),
		)

		When("a value does not parse", func() {
			It("should return status Bad Request naming the field", func() {
				resp := post("/receipts/process", `{"retailer":"Target","purchaseDate":"01/01/2022","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"1.00"}],"total":"1.00"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(ContainSubstring("invalid purchaseDate"))
			})
		})

		When("a price has an exponent", func() {
			It("should return status Bad Request naming the field", func() {
				resp := post("/receipts/process", `{"retailer":"Target","purchaseDate":"2022-01-01","purchaseTime":"13:01","items":[{"shortDescription":"a","price":"1e20000000"}],"total":"1.00"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(ContainSubstring("invalid price"))
			})
		})

		When("an item has no description", func() {
			It("should score it without the description bonus", func() {
				id := process(`{"retailer":"Target","purchaseDate":"2022-01-02","purchaseTime":"13:00","items":[{"price":"10.00"}],"total":"10.00"}`)
				resp := get("/receipts/" + id + "/points")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(readBody(resp)["points"]).To(BeNumerically("==", 81))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				failing := newMockDB()
				failing.insertErr = errors.New("disk full")
				db = failing
				setupServer()
			})

			It("should return status Internal Server Error without detail", func() {
				resp := post("/receipts/process", targetJSON)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(readBody(resp)["error"]).To(Equal("Internal server error"))
			})
		})

		When("the method is not POST", func() {
			It("should return status Method Not Allowed", func() {
				req, err := http.NewRequest(http.MethodPut, ghttpServer.URL()+"/receipts/process", strings.NewReader(targetJSON))
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})

	Describe("GET /receipts/{id}/points", func() {
		When("the receipt exists", func() {
			It("should return its points", func() {
				id := process(targetJSON)

				resp := get("/receipts/" + id + "/points")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(readBody(resp)["points"]).To(BeNumerically("==", 28))
			})

			It("should accept the id in upper case", func() {
				id := process(targetJSON)

				resp := get("/receipts/" + strings.ToUpper(id) + "/points")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(readBody(resp)["points"]).To(BeNumerically("==", 28))
			})
		})

		When("the receipt does not exist", func() {
			It("should return status Not Found", func() {
				id := uuid.NewString()
				resp := get("/receipts/" + id + "/points")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(readBody(resp)["error"]).To(Equal("No receipt found for that id:" + id))
			})
		})

		When("the id is not a UUID", func() {
			It("should return status Bad Request", func() {
				resp := get("/receipts/not-a-uuid/points")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("Invalid receipt id"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				failing := newMockDB()
				failing.getErr = errors.New("disk on fire")
				db = failing
				setupServer()
			})

			It("should return status Internal Server Error", func() {
				resp := get("/receipts/" + uuid.NewString() + "/points")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(readBody(resp)["error"]).To(Equal("Internal server error"))
			})
		})
	})

	Describe("GET /receipts/{id}", func() {
		When("the receipt exists", func() {
			It("should return the stored receipt", func() {
				id := process(targetJSON)

				resp := get("/receipts/" + id)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := readBody(resp)
				Expect(body["id"]).To(Equal(id))
				Expect(body["retailer"]).To(Equal("Target"))
				Expect(body["purchaseDate"]).To(Equal("2022-01-01"))
				Expect(body["purchaseTime"]).To(Equal("13:01"))
				Expect(body["total"]).To(Equal("35.35"))
				Expect(body["items"]).To(HaveLen(5))
			})
		})

		When("the receipt does not exist", func() {
			It("should return status Not Found", func() {
				resp := get("/receipts/" + uuid.NewString())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("POST /receipts/scan", func() {
		scan := func(body *bytes.Buffer, contentType string) *http.Response {
			resp, err := http.Post(ghttpServer.URL()+"/receipts/scan", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("a file is uploaded", func() {
			It("should return the new receipt id", func() {
				body, contentType := multipartBody("file", "receipt.jpg", "image/jpeg", []byte("fake image"))
				resp := scan(body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				id := readBody(resp)["id"].(string)

				pointsResp := get("/receipts/" + id + "/points")
				Expect(readBody(pointsResp)["points"]).To(BeNumerically("==", 28))
			})

			It("should serve the archived file", func() {
				body, contentType := multipartBody("file", "receipt.png", "image/png", []byte("fake png"))
				resp := scan(body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				id := readBody(resp)["id"].(string)

				fileResp := get("/receipts/" + id + "/file")
				defer fileResp.Body.Close()
				Expect(fileResp.StatusCode).To(Equal(http.StatusOK))
				Expect(fileResp.Header.Get("Content-Type")).To(Equal("image/png"))
				data, err := io.ReadAll(fileResp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("fake png"))
			})
		})

		When("no file is uploaded", func() {
			It("should return status Bad Request", func() {
				body, contentType := multipartBody("", "", "", nil)
				resp := scan(body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("No file provided"))
			})
		})

		When("the body is not multipart", func() {
			It("should return status Bad Request", func() {
				resp := scan(bytes.NewBufferString(targetJSON), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("Error parsing form"))
			})
		})

		When("the scanned receipt is invalid", func() {
			BeforeEach(func() {
				scanner.receiptData.Retailer = ""
			})

			It("should return the validation message", func() {
				body, contentType := multipartBody("file", "receipt.jpg", "image/jpeg", []byte("fake image"))
				resp := scan(body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)["error"]).To(Equal("The receipt is invalid : Retailer name must not be blank"))
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("scanning is disabled", func() {
			BeforeEach(func() {
				server = NewServerWithMux(NewService(db, nil, nil), http.NewServeMux())
				ghttpServer.Close()
				ghttpServer = ghttp.NewServer()
				ghttpServer.AppendHandlers(server.ServeHTTP)
			})

			It("should return status Service Unavailable", func() {
				body, contentType := multipartBody("file", "receipt.jpg", "image/jpeg", []byte("fake image"))
				resp := scan(body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(readBody(resp)["error"]).To(Equal("Receipt scanning is not enabled"))
			})
		})
	})

	Describe("GET /receipts/{id}/file", func() {
		When("the receipt was submitted as JSON", func() {
			It("should return status Not Found", func() {
				id := process(targetJSON)

				resp := get("/receipts/" + id + "/file")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/receipts/process", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(Equal("GET, POST, OPTIONS"))
		})

		It("should set headers on regular responses", func() {
			resp := post("/receipts/process", targetJSON)
			defer resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("detectContentType", func() {
		DescribeTable("falls back to the extension",
			func(header, filename, expected string) {
				Expect(detectContentType(header, filename)).To(Equal(expected))
			},
			Entry("explicit header", "image/png", "x.jpg", "image/png"),
			Entry("octet stream jpeg", "application/octet-stream", "x.JPG", "image/jpeg"),
			Entry("empty pdf", "", "scan.pdf", "application/pdf"),
			Entry("heic", "", "IMG_0001.heic", "image/heic"),
			Entry("unknown", "", "notes.txt", "application/octet-stream"),
		)
	})
})
