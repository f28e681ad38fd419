package config

// DefaultRunPattern matches run directories such as "001-T1_MPRAGE".
const DefaultRunPattern = "[0-9][0-9][0-9]-.+"

// DefaultAnatomyKeywords select high-resolution structural runs.
var DefaultAnatomyKeywords = []string{
	"t1", "T1",
	"mprage", "MPRAGE",
	"AAHead",
}

// DefaultTagsToClear lists the identifying attributes emptied in every record.
var DefaultTagsToClear = []string{
	"(0008, 002a)", // Acquisition DateTime
	"(0008, 0012)", // Instance Creation Date
	"(0008, 0013)", // Instance Creation Time
	"(0008, 0020)", // Study Date
	"(0008, 0021)", // Series Date
	"(0008, 0022)", // Acquisition Date
	"(0008, 0023)", // Content Date
	"(0008, 0030)", // Study Time
	"(0008, 0031)", // Series Time
	"(0008, 0033)", // Content Time
	"(0008, 0050)", // Accession Number
	"(0008, 0070)", // Manufacturer
	"(0008, 0080)", // Institution Name
	"(0008, 0081)", // Institution Address
	"(0008, 0090)", // Referring Physician's Name
	"(0008, 0092)", // Referring Physician's Address
	"(0008, 0094)", // Referring Physician's Telephone Numbers
	"(0008, 1010)", // Station Name
	"(0008, 1030)", // Study Description
	"(0008, 103e)", // Series Description
	"(0008, 1040)", // Institutional Department Name
	"(0008, 1048)", // Physician(s) of Record
	"(0008, 1050)", // Performing Physician's Name
	"(0008, 1060)", // Name of Physician(s) Reading Study
	"(0008, 1070)", // Operators' Name
	"(0008, 1080)", // Admitting Diagnoses Description
	"(0008, 1090)", // Manufacturer's Model Name
	"(0008, 2111)", // Derivation Description
	"(0010, 0010)", // Patient's Name
	"(0010, 0020)", // Patient ID
	"(0010, 0021)", // Issuer of Patient ID
	"(0010, 0030)", // Patient's Birth Date
	"(0010, 0032)", // Patient's Birth Time
	"(0010, 0040)", // Patient's Sex
	"(0010, 1001)", // Other Patient Names
	"(0010, 1002)", // Other Patient IDs Sequence
	"(0010, 1005)", // Patient's Birth Name
	"(0010, 1010)", // Patient's Age
	"(0010, 1020)", // Patient's Size
	"(0010, 1030)", // Patient's Weight
	"(0010, 1040)", // Patient's Address
	"(0010, 1060)", // Patient's Mother's Birth Name
	"(0010, 1080)", // Military Rank
	"(0010, 1081)", // Branch of Service
	"(0010, 1090)", // Medical Record Locator
	"(0010, 2150)", // Country of Residence
	"(0010, 2152)", // Region of Residence
	"(0010, 2154)", // Patient's Telephone Numbers
	"(0010, 2160)", // Ethnic Group
	"(0010, 2180)", // Occupation
	"(0010, 21b0)", // Additional Patient History
	"(0010, 21f0)", // Patient's Religious Preference
	"(0010, 4000)", // Patient Comments
	"(0018, 1000)", // Device Serial Number
	"(0018, 1020)", // Software Versions
	"(0018, 1200)", // Date of Last Calibration
	"(0018, 1201)", // Time of Last Calibration
	"(0020, 0010)", // Study ID
	"(0020, 4000)", // Image Comments
	"(0032, 0012)", // Study ID Issuer
	"(0032, 0032)", // Study Verified Date
	"(0032, 0033)", // Study Verified Time
	"(0032, 0034)", // Study Read Date
	"(0032, 0035)", // Study Read Time
	"(0032, 1000)", // Scheduled Study Start Date
	"(0032, 1001)", // Scheduled Study Start Time
	"(0032, 1010)", // Scheduled Study Stop Date
	"(0032, 1011)", // Scheduled Study Stop Time
	"(0032, 1020)", // Scheduled Study Location
	"(0032, 1021)", // Scheduled Study Location AE Title
	"(0032, 1030)", // Reason for Study
	"(0032, 1032)", // Requesting Physician
	"(0032, 1033)", // Requesting Service
	"(0032, 1040)", // Study Arrival Date
	"(0032, 1041)", // Study Arrival Time
	"(0032, 1050)", // Study Completion Date
	"(0032, 1051)", // Study Completion Time
	"(0032, 1060)", // Requested Procedure Description
	"(0032, 4000)", // Study Comments
	"(0038, 0010)", // Admission ID
	"(0038, 0014)", // Issuer of Admission ID
	"(0038, 001a)", // Scheduled Admission Date
	"(0038, 001b)", // Scheduled Admission Time
	"(0038, 001c)", // Scheduled Discharge Date
	"(0038, 001d)", // Scheduled Discharge Time
	"(0038, 001e)", // Scheduled Patient Institution Residence
	"(0038, 0020)", // Admitting Date
	"(0038, 0021)", // Admitting Time
	"(0038, 0030)", // Discharge Date
	"(0038, 0032)", // Discharge Time
	"(0038, 0300)", // Current Patient Location
	"(0038, 0400)", // Patient's Institution Residence
	"(0038, 4000)", // Visit Comments
	"(0040, 0001)", // Scheduled Station AE Title
	"(0040, 0002)", // Scheduled Procedure Step Start Date
	"(0040, 0003)", // Scheduled Procedure Step Start Time
	"(0040, 0004)", // Scheduled Procedure Step End Date
	"(0040, 0005)", // Scheduled Procedure Step End Time
	"(0040, 0006)", // Scheduled Performing Physician's Name
	"(0040, 0007)", // Scheduled Procedure Step Description
	"(0040, 0010)", // Scheduled Station Name
	"(0040, 0011)", // Scheduled Procedure Step Location
	"(0040, 0241)", // Performed Station AE Title
	"(0040, 0242)", // Performed Station Name
	"(0040, 0243)", // Performed Location
	"(0040, 0244)", // Performed Procedure Step Start Date
	"(0040, 0245)", // Performed Procedure Step Start Time
	"(0040, 0250)", // Performed Procedure Step End Date
	"(0040, 0251)", // Performed Procedure Step End Time
	"(0040, 0254)", // Performed Procedure Step Description
	"(0040, 0255)", // Performed Procedure Type Description
	"(0040, 0280)", // Comments on the Performed Procedure Step
	"(0040, 0400)", // Comments on the Scheduled Procedure Step
	"(0040, 1002)", // Reason for the Requested Procedure
	"(0040, 1004)", // Patient Transport Arrangements
	"(0040, 1005)", // Requested Procedure Location
	"(0040, 1010)", // Names of Intended Recipients of Results
	"(0040, 2001)", // Reason for the Imaging Service Request
	"(0040, 2004)", // Issue Date of Imaging Service Request
	"(0040, 2005)", // Issue Time of Imaging Service Request
	"(0040, 2008)", // Order Entered By
	"(0040, 2009)", // Order Enterer's Location
	"(0040, 2010)", // Order Callback Phone Number
	"(0040, 2400)", // Imaging Service Request Comments
	"(0040, 1400)", // Requested Procedure Comments
	"(4008, 0042)", // Results ID Issuer
	"(4008, 0100)", // Interpretation Recorded Date
	"(4008, 0101)", // Interpretation Recorded Time
	"(4008, 0102)", // Interpretation Recorder
	"(4008, 0103)", // Reference to Recorded Sound
	"(4008, 0108)", // Interpretation Transcription Date
	"(4008, 0109)", // Interpretation Transcription Time
	"(4008, 010a)", // Interpretation Transcriber
	"(4008, 010b)", // Interpretation Text
	"(4008, 010c)", // Interpretation Author
	"(4008, 0112)", // Interpretation Approval Date
	"(4008, 0113)", // Interpretation Approval Time
	"(4008, 0114)", // Physician Approving Interpretation
	"(4008, 0115)", // Interpretation Diagnosis Description
	"(4008, 0119)", // Distribution Name
	"(4008, 011a)", // Distribution Address
	"(4008, 0202)", // Interpretation ID Issuer
	"(4008, 0300)", // Impressions
	"(4008, 4000)", // Results Comments
}
